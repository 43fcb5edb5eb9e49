package googlecloud

import (
	"errors"
	"fmt"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"voice-assistant/internal/infra"
)

// Credentials selects how the clients authenticate. With neither a
// credentials file nor an API key, Application Default Credentials are used.
type Credentials struct {
	CredentialsFile string
	APIKey          string
	// Endpoint overrides the service base URL, e.g. for a regional endpoint.
	Endpoint string
}

func (c Credentials) options() []option.ClientOption {
	var opts []option.ClientOption
	switch {
	case c.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(c.CredentialsFile))
	case c.APIKey != "":
		opts = append(opts, option.WithAPIKey(c.APIKey))
	}
	if c.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.Endpoint))
	}
	return opts
}

// apiError flattens a googleapi error and marks transient statuses
// retryable.
func apiError(api string, err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}

	err = fmt.Errorf("%s API error %d: %s", api, gerr.Code, gerr.Message)
	if infra.IsRetryableHTTPStatus(gerr.Code) {
		return infra.Retryable(err)
	}
	return err
}
