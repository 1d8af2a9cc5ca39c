// Package openapi OpenAPI仕様ファイルをバイナリに埋め込んで配信する
package openapi

import _ "embed"

// Spec OpenAPI仕様（YAML形式）
//
//go:embed openapi.yaml
var Spec []byte
