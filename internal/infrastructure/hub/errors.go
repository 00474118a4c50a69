package hub

import (
	"github.com/samber/oops"
)

// CodeTenantLimitExceeded marks the only error the hub surfaces to the
// connection-establishment caller: the tenant's concurrent-connection cap is
// reached and the registration was rejected without mutating the registry.
const CodeTenantLimitExceeded = "TENANT_LIMIT_EXCEEDED"

// IsLimitExceeded reports whether err is a tenant capacity rejection.
func IsLimitExceeded(err error) bool {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return false
	}
	return oopsErr.Code() == CodeTenantLimitExceeded
}
