package appidentityassets

import _ "embed"

// YAML is the application identity compiled into the binary. It is used when
// no external identity file is found.
//
//go:embed app.yaml
var YAML []byte
