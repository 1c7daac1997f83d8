// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key
// name and the file contents (trimmed) are the value.
//
// Recognized key files: tavily-api-key, openai-api-key.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/research-agent/pkg/types"
)

// Key file names.
const (
	TavilyAPIKey = "tavily-api-key"
	OpenAIAPIKey = "openai-api-key"
)

// DefaultDir is the secrets directory relative to the working directory.
const DefaultDir = ".secrets"

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files are logged as warnings on the global zap logger and skipped.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			zap.L().Warn("could not read secret", zap.String("name", name), zap.Error(err))
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// Resolve fills the empty fields of creds from the key files in dir.
// Values already present in creds (from flags, config or environment) win.
func Resolve(dir string, creds types.Credentials) (types.Credentials, error) {
	if creds.SearchAPIKey != "" && creds.LLMAPIKey != "" {
		return creds, nil
	}
	files, err := Load(dir)
	if err != nil {
		return creds, err
	}
	if creds.SearchAPIKey == "" {
		creds.SearchAPIKey = files[TavilyAPIKey]
	}
	if creds.LLMAPIKey == "" {
		creds.LLMAPIKey = files[OpenAIAPIKey]
	}
	return creds, nil
}
