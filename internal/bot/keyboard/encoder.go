package keyboard

import (
	"errors"
	"fmt"
	"strings"
)

const (
	CallbackDataSeparator  = ":"
	CallbackDataLimitBytes = 64
)

// EncodeCallback packs an action, a flow id and a payload into callback
// data. The segments joined by ":" must fit the Telegram 64 byte limit.
func EncodeCallback(action, flowID, payload string) (string, error) {
	if action == "" {
		return "", errors.New("callback action is empty")
	}

	data := action + CallbackDataSeparator + flowID + CallbackDataSeparator + payload
	if len(data) > CallbackDataLimitBytes {
		return "", fmt.Errorf("callback data exceeds %d byte limit: got %d", CallbackDataLimitBytes, len(data))
	}

	return data, nil
}

// DecodeCallback splits callback data produced by EncodeCallback. Payloads
// may themselves contain the separator.
func DecodeCallback(callbackData string) (action, flowID, payload string, err error) {
	if callbackData == "" {
		return "", "", "", errors.New("callback data is empty")
	}

	parts := strings.SplitN(callbackData, CallbackDataSeparator, 3)
	action = parts[0]
	if len(parts) > 1 {
		flowID = parts[1]
	}
	if len(parts) > 2 {
		payload = parts[2]
	}

	return action, flowID, payload, nil
}
