package bridge

import "context"

// Accessor is a read only view over the resolved payload of a request.
// All checks return false when the payload or the account/app context is
// missing.
type Accessor struct {
	res *Resolution
}

// NewAccessor wraps a resolution. A nil resolution yields an accessor that
// denies every check.
func NewAccessor(res *Resolution) Accessor {
	return Accessor{res: res}
}

// AccessorFromContext builds an accessor over the resolution in ctx.
func AccessorFromContext(ctx context.Context) Accessor {
	res, _ := ResolutionFromContext(ctx)
	return NewAccessor(res)
}

// CurrentPayload returns the payload of the request, or nil.
func (a Accessor) CurrentPayload() *Payload {
	if a.res == nil {
		return nil
	}
	return a.res.Payload
}

// User returns the local user of the request, or nil.
func (a Accessor) User() *User {
	if a.res == nil {
		return nil
	}
	return a.res.User
}

// AccountID returns the account id resolved from the request headers.
func (a Accessor) AccountID() string {
	if a.res == nil {
		return ""
	}
	return a.res.Scope.AccountID
}

// AppKey returns the app key resolved from the request headers.
func (a Accessor) AppKey() string {
	if a.res == nil {
		return ""
	}
	return a.res.Scope.AppKey
}

// HasPermission checks name within the request account/app.
func (a Accessor) HasPermission(name string) bool {
	return a.HasPermissionIn(name, "", "")
}

// HasPermissionIn checks name for an explicit account/app. Empty values
// fall back to the request context.
func (a Accessor) HasPermissionIn(name, account, app string) bool {
	account, app = a.scope(account, app)
	return a.CurrentPayload().HasPermission(name, account, app)
}

// HasRole checks role within the request account/app.
func (a Accessor) HasRole(name string) bool {
	return a.HasRoleIn(name, "", "")
}

// HasRoleIn checks role for an explicit account/app. Empty values fall back
// to the request context.
func (a Accessor) HasRoleIn(name, account, app string) bool {
	account, app = a.scope(account, app)
	return a.CurrentPayload().HasRole(name, account, app)
}

// Permissions lists the permissions for the request account/app.
func (a Accessor) Permissions() []string {
	p := a.CurrentPayload()
	if p == nil {
		return nil
	}
	account, app := a.scope("", "")
	return p.Permissions.Lookup(account, app)
}

// Roles lists the roles for the request account/app.
func (a Accessor) Roles() []string {
	p := a.CurrentPayload()
	if p == nil {
		return nil
	}
	account, app := a.scope("", "")
	return p.Roles.Lookup(account, app)
}

func (a Accessor) scope(account, app string) (string, string) {
	if account == "" {
		account = a.AccountID()
	}
	if app == "" {
		app = a.AppKey()
	}
	return account, app
}
