package main

import (
	"context"
	"fmt"

	"github.com/trezcool/edudesk/core/staff"
)

// addUser creates an active staff member.
func (cli *commandLine) addUser(name, uname, email, pwd string, roles []string, isAdmin bool) error {
	if isAdmin {
		roles = staff.AllRoles
	}
	s, err := cli.staffSvc.Create(context.Background(), staff.NewStaff{
		Name:            name,
		Username:        uname,
		Email:           email,
		Password:        pwd,
		PasswordConfirm: pwd,
		Roles:           roles,
	})
	if err != nil {
		return err
	}
	fmt.Printf("staff %q created (%s)\n", s.Name, s.ID)
	return nil
}
