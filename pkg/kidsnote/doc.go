// Package kidsnote is a client for the Kidsnote parent API.
//
// The Client owns the Session: LoginWithPassword and LoginWithRefreshToken
// replace its tokens on success and clear them on any failure, and every
// authenticated call reads the access token from it.
//
//	client := kidsnote.NewClient(nil, cfg.Kidsnote, log)
//	if _, err := client.LoginWithRefreshToken(ctx, refresh); err != nil {
//	    return err
//	}
//	info, err := client.GetMyInfo(ctx)
//
// Errors are *errors.Error values typed by HTTP status (unauthorized,
// not_found, server_error, unknown) or by failure kind (network, parsing).
package kidsnote
