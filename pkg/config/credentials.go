// Copyright 2025 the assetman authors
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

package config

import (
	"os"

	"github.com/joho/godotenv"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/oauth2"
)

// Environment variables carrying credentials. A .env file in the working
// directory is loaded first, without overriding variables already set.
const (
	EnvToken = "ASSETMAN_TOKEN"
)

// 🔑 Credentials authorizes catalog API calls
type Credentials struct {
	// Token is a bearer token accepted by the catalog API
	Token string
}

// LoadCredentials picks up credentials from a .env file (when present) and
// the process environment
func LoadCredentials() (*Credentials, error) {
	// Missing .env is fine; a malformed one is not
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, errors.Errorf("loading .env: %w", err)
		}
	}

	token := os.Getenv(EnvToken)
	if token == "" {
		return nil, errors.Errorf("no credentials: set %s or provide a .env file", EnvToken)
	}
	return &Credentials{Token: token}, nil
}

// TokenSource exposes the credentials to the HTTP layer
func (c *Credentials) TokenSource() oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: c.Token})
}
