package client

import (
	"encoding/json"
	"fmt"

	"github.com/go-resty/resty/v2"
)

func decode(res *resty.Response, v interface{}) error {
	if err := json.Unmarshal(res.Body(), v); err != nil {
		return fmt.Errorf("failed to decode %d response: %w", res.StatusCode(), err)
	}
	return nil
}
