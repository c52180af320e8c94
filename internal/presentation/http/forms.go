package http

import (
	"encoding/json"
	"io"
	"net/url"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rotisserie/eris"
)

const formContentType = "application/x-www-form-urlencoded"

// formFormat lets the HTML forms post to the same operations as JSON
// clients. Empty fields are dropped so optional values keep their defaults.
var formFormat = huma.Format{
	Marshal: func(w io.Writer, v any) error {
		return json.NewEncoder(w).Encode(v)
	},
	Unmarshal: func(data []byte, v any) error {
		values, err := url.ParseQuery(string(data))
		if err != nil {
			return eris.Wrap(err, "parsing form body")
		}

		fields := make(map[string]any, len(values))
		for key := range values {
			if value := values.Get(key); value != "" {
				fields[key] = value
			}
		}

		if target, ok := v.(*any); ok {
			*target = fields
			return nil
		}

		encoded, err := json.Marshal(fields)
		if err != nil {
			return eris.Wrap(err, "re-encoding form body")
		}
		return json.Unmarshal(encoded, v)
	},
}
