package testutil

import (
	"context"

	"github.com/wealthhorizon/paybridge/internal/types"
)

func SetupContext() context.Context {
	return types.SetRequestID(context.Background(), types.GenerateUUID())
}
