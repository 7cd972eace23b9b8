//go:build race

package bridge

import "golang.org/x/crypto/bcrypt"

func placeholderCost() int {
	// race builds run the suite under strict timeouts
	return bcrypt.MinCost
}
