package main

import (
	"context"
	"fmt"

	"github.com/trezcool/cblms/core/user"
)

// addUser creates a user the same way the users API does, password policy included.
func (cli *commandLine) addUser(name, email, pwd string, role user.Role) error {
	nu := user.NewUser{Name: name, Email: email, Password: pwd, Role: role}
	nu.Clean()
	if err := cli.validate.Struct(nu); err != nil {
		return cli.validationError(err)
	}

	usr, err := cli.usrSvc.Create(context.Background(), nu)
	if err != nil {
		return err
	}
	fmt.Printf("%s %s created with id %s\n", usr.Role, usr.Email, usr.ID)
	return nil
}
