package otel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitRequiresServiceName(t *testing.T) {
	_, err := Init(context.Background(), Config{})
	require.Error(t, err)
}

func TestInitWithoutExporters(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{ServiceName: "fairswapd", ChainID: 7})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestParseHeaders(t *testing.T) {
	headers := ParseHeaders(" authorization = Bearer x ,bad, =skip,tenant=ops")
	require.Equal(t, map[string]string{"authorization": "Bearer x", "tenant": "ops"}, headers)
}
