package runfile

import "encoding/json"

func mustNumber(s string) json.Number { return json.Number(s) }
