package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// decodeBody decodes a JSON request body into v. An empty body leaves v
// unchanged.
func decodeBody(c echo.Context, v any) error {
	err := c.Echo().JSONSerializer.Deserialize(c, v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return fail(http.StatusBadRequest, "Invalid JSON body", err)
}

// flexInt accepts a JSON number or a numeric string. Admin forms send both.
type flexInt int64

func (f *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid integer %s", data)
	}
	*f = flexInt(n)
	return nil
}

// flexBool accepts true/false, 0/1 and their string forms.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	switch string(bytes.Trim(data, `"`)) {
	case "true", "1":
		*f = true
	case "false", "0", "", "null":
		*f = false
	default:
		return fmt.Errorf("invalid boolean %s", data)
	}
	return nil
}

type idRequest struct {
	ID flexInt `json:"id"`
}

// requireID decodes {"id": ...} and rejects a missing or zero id.
func requireID(c echo.Context) (int64, error) {
	var req idRequest
	if err := decodeBody(c, &req); err != nil {
		return 0, err
	}
	if req.ID <= 0 {
		return 0, fail(http.StatusBadRequest, "Missing ID", nil)
	}
	return int64(req.ID), nil
}

type messageResponse struct {
	Message string `json:"message"`
	ID      int64  `json:"id,omitempty"`
}

func message(c echo.Context, code int, msg string) error {
	return c.JSON(code, messageResponse{Message: msg})
}
