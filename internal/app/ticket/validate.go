package ticket

import "zone/internal/app/user"

// ValidateIdentity checks the name and avatar a join request carries.
func ValidateIdentity(name, avatar string) error {
	if err := user.ValidateName(name); err != nil {
		return err
	}
	if err := user.ValidateAvatar(avatar); err != nil {
		return err
	}
	return nil
}
