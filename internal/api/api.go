// Package api はOpenAPI定義から生成されたサーバーインターフェースとDTOを提供します。
package api

import _ "embed"

//go:generate go tool oapi-codegen -config cfg.yaml openapi.yaml

// Spec は埋め込まれたOpenAPIドキュメント（YAML）です。
//
//go:embed openapi.yaml
var Spec []byte
