package forms

import (
	"net/url"
	"strings"
)

const MinPasswordLength = 8

type RegisterForm struct {
	Username     string
	Email        string
	Password     string
	FirstName    string
	LastName     string
	SendMessages bool
}

func ParseRegister(values url.Values) (RegisterForm, Errors) {
	errs := Errors{}
	f := RegisterForm{
		Username:  strings.TrimSpace(values.Get("username")),
		Email:     strings.TrimSpace(values.Get("email")),
		FirstName: strings.TrimSpace(values.Get("first_name")),
		LastName:  strings.TrimSpace(values.Get("last_name")),
	}
	validateUserFields(errs, f.Username, f.Email, f.FirstName, f.LastName)
	f.SendMessages = sendMessages(errs, values)
	f.Password = newPassword(errs, values, "password1", "password2")
	return f, errs
}

type UserInfoForm struct {
	Username     string
	Email        string
	FirstName    string
	LastName     string
	SendMessages bool
}

func ParseUserInfo(values url.Values) (UserInfoForm, Errors) {
	errs := Errors{}
	f := UserInfoForm{
		Username:  strings.TrimSpace(values.Get("username")),
		Email:     strings.TrimSpace(values.Get("email")),
		FirstName: strings.TrimSpace(values.Get("first_name")),
		LastName:  strings.TrimSpace(values.Get("last_name")),
	}
	validateUserFields(errs, f.Username, f.Email, f.FirstName, f.LastName)
	f.SendMessages = sendMessages(errs, values)
	return f, errs
}

type PasswordChangeForm struct {
	OldPassword string
	NewPassword string
}

func ParsePasswordChange(values url.Values) (PasswordChangeForm, Errors) {
	errs := Errors{}
	f := PasswordChangeForm{OldPassword: values.Get("old_password")}
	required(errs, "old_password", f.OldPassword)
	f.NewPassword = newPassword(errs, values, "new_password1", "new_password2")
	return f, errs
}

func validateUserFields(errs Errors, username, email, first, last string) {
	if required(errs, "username", username) {
		maxLength(errs, "username", username, 150)
		if strings.ContainsAny(username, " \t/") || hasControl(username) {
			errs.Add("username", "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters.")
		}
	}
	if required(errs, "email", email) {
		maxLength(errs, "email", email, 255)
		if at := strings.Index(email, "@"); at < 1 || at == len(email)-1 || strings.ContainsAny(email, " \t") || hasControl(email) {
			errs.Add("email", "Enter a valid email address.")
		}
	}
	maxLength(errs, "first_name", first, 150)
	singleLine(errs, "first_name", first)
	maxLength(errs, "last_name", last, 150)
	singleLine(errs, "last_name", last)
}

func sendMessages(errs Errors, values url.Values) bool {
	v, err := ParseBool(values, "send_messages", true)
	if err != nil {
		errs.Add("send_messages", "Enter a valid boolean.")
	}
	return v
}

func newPassword(errs Errors, values url.Values, field1, field2 string) string {
	p1, p2 := values.Get(field1), values.Get(field2)
	if !required(errs, field1, p1) {
		return ""
	}
	if !required(errs, field2, p2) {
		return ""
	}
	if p1 != p2 {
		errs.Add(field2, "The two password fields didn't match.")
		return ""
	}
	if len([]rune(p1)) < MinPasswordLength {
		errs.Add(field1, "This password is too short. It must contain at least %d characters.", MinPasswordLength)
		return ""
	}
	return p1
}
