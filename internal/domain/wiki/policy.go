package wiki

import (
	"context"
	"strings"
)

// ContainerPolicy grants read access on public containers to everyone and
// full access to signed-in users.
type ContainerPolicy struct{}

var _ Authorizer = ContainerPolicy{}

// Can implements Authorizer.
func (ContainerPolicy) Can(_ context.Context, user string, ability Ability, container Container) bool {
	signedIn := strings.TrimSpace(user) != ""

	switch ability {
	case AbilityReadWiki:
		return container.Public || signedIn
	case AbilityCreateWiki:
		return signedIn
	default:
		return false
	}
}
