//go:build !race

package bridge

import "golang.org/x/crypto/bcrypt"

func placeholderCost() int {
	return bcrypt.DefaultCost
}
