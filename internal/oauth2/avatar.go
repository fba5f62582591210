// Copyright 2026 The SecureShop Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package oauth2

// ExtractAvatar pulls an avatar URL out of a provider attribute mapping.
// The key order picture, avatar_url, image is a compatibility list: Google
// populates picture as a plain string, Facebook nests it as
// {picture: {data: {url: ...}}}, GitHub uses avatar_url, and a few
// providers use image. Do not reorder.
func ExtractAvatar(attrs map[string]any) string {
	value, ok := attrs["picture"]
	if !ok || value == nil {
		value = attrs["avatar_url"]
		if value == nil {
			value = attrs["image"]
		}
	}

	if value == nil {
		return ""
	}

	if s, ok := value.(string); ok {
		return s
	}

	if m, ok := value.(map[string]any); ok {
		// Facebook shape: {data: {url: "..."}}
		if data, ok := m["data"].(map[string]any); ok {
			if url, ok := data["url"].(string); ok {
				return url
			}
		}
		if url, ok := m["url"].(string); ok {
			return url
		}
	}

	return ""
}
