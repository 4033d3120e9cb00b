//go:build integration

package nlp

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestIntegration_RealEndpoint(t *testing.T) {
	baseURL := os.Getenv("NLP_BASE_URL")
	model := os.Getenv("NLP_MODEL")

	if baseURL == "" || model == "" {
		t.Skip("NLP_BASE_URL and NLP_MODEL required for integration tests")
	}

	client := NewClient(baseURL, model, 30*time.Second, logrus.New())

	result, err := client.Parse(context.Background(), "slow songs about grace for an altar call")
	require.NoError(t, err)
	require.NotNil(t, result)
	require.NotEmpty(t, result.Themes)
}
