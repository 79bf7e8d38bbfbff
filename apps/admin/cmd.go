package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"sort"
	"strings"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	pkgerrors "github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/trezcool/edudesk/core"
	"github.com/trezcool/edudesk/core/staff"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type staffCreator interface {
	Create(ctx context.Context, ns staff.NewStaff) (staff.Staff, error)
}

type commandLine struct {
	db         *sql.DB
	staffSvc   staffCreator
	translator ut.Translator
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run a goose command: up, up-by-one, up-to, down, down-to, redo, reset, status, version, create, fix")
	fmt.Println("  adduser -name NAME [-username USERNAME] [-email EMAIL] [-roles ROLE,...] [-admin] - create a staff member; the password is prompted next")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserName := addUserCmd.String("name", "", "The staff member's display name.")
	addUserUname := addUserCmd.String("username", "", "The staff member's username.")
	addUserEmail := addUserCmd.String("email", "", "The staff member's email.")
	addUserRoles := addUserCmd.String("roles", "", "Comma separated roles, e.g. accounts:,counsellor:")
	addUserIsAdmin := addUserCmd.Bool("admin", false, "Give the staff member every role.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserName == "" || (*addUserUname == "" && *addUserEmail == "") {
			addUserCmd.Usage()
			return errHelp
		}
		fmt.Print("Enter password:")
		pwd, err := readPasswordFunc(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(*addUserName, *addUserUname, *addUserEmail, string(pwd), splitRoles(*addUserRoles), *addUserIsAdmin)
	default:
		cli.printUsage()
		return errHelp
	}
}

func splitRoles(s string) []string {
	var roles []string
	for _, role := range strings.Split(s, ",") {
		if role = strings.TrimSpace(role); role != "" {
			roles = append(roles, role)
		}
	}
	return roles
}

// describe flattens validation errors into one line per field.
func (cli *commandLine) describe(err error) string {
	switch vErr := pkgerrors.Cause(err).(type) {
	case validator.ValidationErrors:
		msgs := make([]string, 0, len(vErr))
		for _, fErr := range vErr {
			msgs = append(msgs, fErr.Field()+": "+fErr.Translate(cli.translator))
		}
		sort.Strings(msgs)
		return strings.Join(msgs, "; ")
	case *core.ValidationError:
		msgs := make([]string, 0, len(vErr.Fields))
		for _, fErr := range vErr.Fields {
			msgs = append(msgs, fErr.Field+": "+fErr.Error)
		}
		if len(msgs) == 0 {
			return vErr.Error()
		}
		return strings.Join(msgs, "; ")
	}
	return err.Error()
}
