/*
Package authsdk provides a client SDK for the usermgmt identity service.

# Overview

The package is organized around two types:

  - SDKClient: unauthenticated operations (register, login, email
    verification, health) and creation of authenticated sessions
  - Session: operations that present the bearer session token

Create an SDKClient for the public endpoints:

	client := authsdk.NewSDKClient("https://auth.example.com")

	user, err := client.Register(ctx, authsdk.RegisterRequest{
		Email:    "ann@example.com",
		Password: "Secret1",
		Name:     "Ann",
		Role:     "User",
	})

	// The verification token arrives by email.
	session, err := client.VerifyEmail(ctx, authsdk.VerifyEmailRequest{
		Email: "ann@example.com",
		Token: token,
	})

	// Later logins.
	session, err = client.Login(ctx, authsdk.LoginRequest{
		Email:    "ann@example.com",
		Password: "Secret1",
	})

Use the Session for account and permission administration:

	me, err := session.GetUser(ctx, session.User().ID)
	users, err := session.ListUsers(ctx) // Admin with User Management read

	entry, err := session.SetPermission(ctx, authsdk.SetPermissionRequest{
		Role:   "Manager",
		Module: "Reports",
		Create: true,
		Read:   true,
	})

Sessions are stateless bearer tokens with a fixed expiry; there is no
refresh. Log in again once Session.Expired reports true.

# Errors

Every non-2xx response is returned as an *APIError carrying the HTTP status,
the envelope message and any field-level validation errors. Compare with the
predefined errors using errors.Is:

	_, err := client.Login(ctx, req)
	switch {
	case errors.Is(err, authsdk.ErrUnauthorized):
		// wrong email or password
	case errors.Is(err, authsdk.ErrForbidden):
		// email not verified yet
	}

# Validation

Request types implement Validate, which returns field-level problems using
the same rules the server applies. Validate before sending to save a round
trip.
*/
package authsdk
