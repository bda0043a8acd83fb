package main

import (
	"errors"
	"flag"
	"fmt"
	"syscall"

	"golang.org/x/term"

	"github.com/jmoiron/sqlx"

	"github.com/modelaedu/modela/core"
	"github.com/modelaedu/modela/storage/database"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf      *core.Config
	db        *sqlx.DB
	usrRepo   *database.UserRepository
	learnRepo *database.LearningRepository
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  listusers                     - list registered users")
	fmt.Println("  resetpassword -email EMAIL    - reset user's password")
	fmt.Println("  resetuserdata -user ID|EMAIL  - wipe a user's progress, attempts, scores and states")
	fmt.Println("  migrate                       - create/update the database schema")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The user's email. The password will be prompted next.")

	resetDataCmd := flag.NewFlagSet("resetuserdata", flag.ExitOnError)
	resetDataUser := resetDataCmd.String("user", "", "The user's id or email.")

	switch args[1] {
	case "listusers":
		return cli.listUsers()
	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		fmt.Print("Enter password:")
		pwd, err := readPasswordFunc(syscall.Stdin)
		fmt.Println()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordEmail, string(pwd))
	case "resetuserdata":
		if err := resetDataCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetDataUser == "" {
			resetDataCmd.Usage()
			return errHelp
		}
		return cli.resetUserData(*resetDataUser)
	case "migrate":
		return database.Migrate(cli.db, cli.conf.Database.Engine)
	default:
		cli.printUsage()
		return errHelp
	}
}
