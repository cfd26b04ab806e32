package core

import (
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
)

func TestUsernameValidation(t *testing.T) {
	validate := validator.New()
	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	translator, _ := uni.GetTranslator("en")
	InitValidators(validate, translator)

	type form struct {
		Username string `json:"username" validate:"omitempty,username"`
	}

	tests := []struct {
		name    string
		uname   string
		wantErr bool
	}{
		{name: "empty skipped by omitempty", uname: ""},
		{name: "letters only", uname: "amina"},
		{name: "letters digits underscores", uname: "amina_k2"},
		{name: "leading digit", uname: "2amina", wantErr: true},
		{name: "leading underscore", uname: "_amina", wantErr: true},
		{name: "inner space", uname: "amina k", wantErr: true},
		{name: "punctuation", uname: "amina.k", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(form{Username: tt.uname})
			if !tt.wantErr {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			verrs, ok := err.(validator.ValidationErrors)
			if !ok {
				t.Fatalf("expected validation errors; got %v", err)
			}
			if got := verrs[0].Translate(translator); got != usernameText {
				t.Errorf("message = %q; want %q", got, usernameText)
			}
		})
	}
}
