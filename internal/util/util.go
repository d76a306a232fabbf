// Copyright 2025 Google LLC
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

package util

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ParentProcessDirEnv names the directory relative config paths are resolved
// against when fixedpool is launched by a wrapper from another directory.
const ParentProcessDirEnv = "FIXEDPOOL_PARENT_PROCESS_DIR"

// GetResolvedPath turns filePath into an absolute path.
//  1. Absolute paths and the empty string are returned unchanged.
//  2. A leading ~/ is resolved against the home directory.
//  3. Other relative paths are resolved against ParentProcessDirEnv when it is
//     set, and against the working directory otherwise.
func GetResolvedPath(filePath string) (string, error) {
	if filePath == "" || path.IsAbs(filePath) {
		return filePath, nil
	}

	if strings.HasPrefix(filePath, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("fetch home dir: %w", err)
		}
		return filepath.Join(homeDir, filePath[2:]), nil
	}

	parentDir := strings.TrimSpace(os.Getenv(ParentProcessDirEnv))
	if parentDir == "" {
		return filepath.Abs(filePath)
	}
	return filepath.Join(parentDir, filePath), nil
}

// Stringify marshals an object (only exported attribute) to a JSON string.
func Stringify(input any) (string, error) {
	inputBytes, err := json.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("error in Stringify %w", err)
	}
	return string(inputBytes), nil
}
