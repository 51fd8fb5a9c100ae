// internal/stealth/script.go
package stealth

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/jennylv001/s1/api/schemas"
)

//go:embed evasions.js
var evasionsScript string

// RenderEvasionScript produces the page-injection payload for a resolved
// profile: the persona and the evasion toggle bundle serialized as globals,
// followed by the embedded evasion suite. The script reads the globals at
// document start, before any page script runs.
//
// An empty toggle bundle yields an empty payload; nothing should be injected
// when no evasion group is active.
func RenderEvasionScript(p schemas.Persona, params schemas.ScriptEvasionParams) (string, error) {
	if params.Empty() {
		return "", nil
	}

	personaJSON, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("stealth: marshaling persona for injection: %w", err)
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("stealth: marshaling evasion params for injection: %w", err)
	}

	return fmt.Sprintf("const S1_PERSONA = %s;\nconst S1_EVASIONS = %s;\n%s",
		personaJSON, paramsJSON, evasionsScript), nil
}
