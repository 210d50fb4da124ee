package session

import (
	"context"

	"golang.org/x/oauth2"
)

var _ oauth2.TokenSource = (*tokenSource)(nil)

type tokenSource struct {
	ctx     context.Context
	manager *Manager
}

// TokenSource adapts the manager for oauth2.Transport. Each Token call goes
// through GetAccessToken, so requests made with it refresh on demand. The
// oauth2.TokenSource interface carries no context: every Token call, and any
// refresh it starts, runs under ctx for the life of the source.
func (m *Manager) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &tokenSource{ctx: ctx, manager: m}
}

func (ts *tokenSource) Token() (*oauth2.Token, error) {
	cred, err := ts.manager.currentCredential(ts.ctx)
	if err != nil {
		return nil, err
	}
	return cred.OAuth2Token(), nil
}
