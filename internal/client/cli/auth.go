package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/dmitrijs2005/sessionkeeper/internal/client/api"
	"github.com/dmitrijs2005/sessionkeeper/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts the user for an email and password and attempts to
// create a new account.
//
// On success it prints "Success!" and returns nil. The password byte
// slice is wiped before returning. Any I/O or API error is returned
// unchanged.
func (a *App) Register(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if _, err := a.api.Register(ctx, email, password); err != nil {
		log.Printf("Registration unsuccessfull: %s", err.Error())
		return err
	}

	fmt.Println("Success!")
	return nil
}

// Login prompts the user for credentials and exchanges them for a
// token pair. Logging in revokes all earlier sessions of the account,
// so a pair held by another client stops refreshing.
//
// The password is wiped before returning.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	pair, err := a.api.Login(ctx, email, password)
	if err != nil {
		if errors.Is(err, api.ErrUnavailable) {
			log.Printf("Server unavailable: %s", err.Error())
		} else {
			log.Printf("Login unsuccessfull: %s", err.Error())
		}
		return err
	}

	a.setSession(email, pair)
	log.Printf("Login successfull")
	return nil
}

// Logout revokes every session of the user on the server and drops
// the local token pair. Revoking an already-revoked session is not an
// error, so logout always succeeds locally.
func (a *App) Logout(ctx context.Context) error {
	token := a.currentAccessToken()
	if token != "" {
		if err := a.api.Logout(ctx, token); err != nil {
			log.Printf("Server logout failed: %s", err.Error())
		}
	}
	a.clearSession()
	return nil
}

// Whoami fetches and prints the profile of the authenticated user.
func (a *App) Whoami(ctx context.Context) error {
	user, err := a.api.Me(ctx, a.currentAccessToken())
	if err != nil {
		log.Printf("error: %s", err.Error())
		return err
	}

	fmt.Printf("%s (%s %s), registered %s\n",
		user.Email, user.FirstName, user.LastName, user.CreatedAt.Format("2006-01-02"))
	return nil
}
