package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
)

func (cli *commandLine) listUsers() error {
	ctx := context.Background()
	users, err := cli.usrRepo.QueryAllUsers(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNOME\tEMAIL\tMATRICULA\tUSERNAME\tCREATED")
	for _, usr := range users {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			usr.ID, usr.Nome, usr.Email, usr.Matricula, usr.Username, usr.CreatedAt.Format("2006-01-02"))
	}
	return w.Flush()
}
