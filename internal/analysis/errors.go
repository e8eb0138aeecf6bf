package analysis

import (
	"errors"
	"strings"

	"google.golang.org/genai"
)

// Classify maps an oracle failure to the message recorded on the track.
// Not-found and invalid-argument signals get friendlier messages; anything
// else passes through untouched.
func Classify(err error) string {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 404:
			return "Model not supported/found."
		case 400:
			return "Invalid file or parameters."
		}
	}

	msg := err.Error()
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(msg, "404"), strings.Contains(lower, "not found"):
		return "Model not supported/found."
	case strings.Contains(msg, "400"), strings.Contains(msg, "INVALID_ARGUMENT"):
		return "Invalid file or parameters."
	}
	return msg
}
