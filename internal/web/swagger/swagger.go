// Copyright (c) 2025, the talentgate contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package swagger embeds the OpenAPI description of the gateway API.
package swagger

import (
	_ "embed"

	"github.com/pkg/errors"
)

//go:embed openapi.yaml
var openapiYAML []byte

// GetOpenAPISpec returns the embedded OpenAPI document.
func GetOpenAPISpec() ([]byte, error) {
	if len(openapiYAML) == 0 {
		return nil, errors.New("openapi spec not embedded")
	}
	return openapiYAML, nil
}
