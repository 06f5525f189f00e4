package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ardanlabs/powmesh/business/web/errs"
)

var client = http.Client{
	Timeout: 10 * time.Second,
}

// send performs the request against the service and decodes the response
// into dataRecv.
func send(method string, path string, dataSend any, dataRecv any) error {
	var body bytes.Buffer
	if dataSend != nil {
		if err := json.NewEncoder(&body).Encode(dataSend); err != nil {
			return err
		}
	}

	req, err := http.NewRequest(method, url+path, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var er errs.Response
		if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
			return fmt.Errorf("status %d", resp.StatusCode)
		}

		msg := er.Error
		for field, fe := range er.Fields {
			msg += fmt.Sprintf(": %s: %s", field, fe)
		}
		return errors.New(msg)
	}

	if dataRecv != nil {
		if err := json.NewDecoder(resp.Body).Decode(dataRecv); err != nil {
			return err
		}
	}

	return nil
}
