package loginsession

// Bridge is the output port to the surrounding host frame. The session
// calls SetUser whenever it enters the LoggedOut (user == nil) or LoggedIn
// (user == &identity.User) state, and SetFrameHeight after each render pass.
type Bridge interface {
	SetUser(user *string)
	SetFrameHeight(px int)
}

// BridgeFuncs adapts plain functions to the Bridge interface. Nil fields
// are skipped, so hosts only wire the callbacks they care about.
type BridgeFuncs struct {
	SetUserFunc        func(user *string)
	SetFrameHeightFunc func(px int)
}

var _ Bridge = BridgeFuncs{}

func (b BridgeFuncs) SetUser(user *string) {
	if b.SetUserFunc != nil {
		b.SetUserFunc(user)
	}
}

func (b BridgeFuncs) SetFrameHeight(px int) {
	if b.SetFrameHeightFunc != nil {
		b.SetFrameHeightFunc(px)
	}
}
