package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// resetUserData wipes a user's learning rows. The account itself stays.
func (cli *commandLine) resetUserData(idOrEmail string) error {
	ctx := context.Background()

	var userID int64
	if strings.Contains(idOrEmail, "@") {
		usr, err := cli.usrRepo.GetUserByEmail(ctx, strings.ToLower(idOrEmail))
		if err != nil {
			return err
		}
		userID = usr.ID
	} else {
		id, err := strconv.ParseInt(idOrEmail, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid user id %q", idOrEmail)
		}
		if _, err = cli.usrRepo.GetUserByID(ctx, id); err != nil {
			return err
		}
		userID = id
	}

	if err := cli.learnRepo.PurgeUserData(ctx, userID); err != nil {
		return err
	}
	fmt.Printf("learning data cleared for user %d\n", userID)
	return nil
}
