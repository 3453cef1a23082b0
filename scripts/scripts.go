// Package scripts embeds the bundled Risor mutator scripts. Each
// ext/<tag>.risor implements the extension tag of the same name; lib/ holds
// modules the scripts import.
package scripts

import "embed"

//go:embed ext/*.risor lib/*.risor
var FS embed.FS
