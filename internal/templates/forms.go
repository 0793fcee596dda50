// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package templates

// RegisterForm holds submitted registration values.
type RegisterForm struct {
	Email     string
	Firstname string
	Lastname  string
	Owner     bool
}

// VerifyForm holds the state of the account verification form.
type VerifyForm struct {
	Email    string
	Token    string
	UserType string
	// OwnerApplication shows an editable e-mail and the password fields.
	OwnerApplication bool
	Values           map[string]string
	Errors           map[string]string
}

func (f VerifyForm) titleID() string {
	if f.OwnerApplication {
		return "owner_application_title"
	}
	return "verify_title"
}

func (f VerifyForm) introID() string {
	if f.OwnerApplication {
		return "owner_application_intro"
	}
	return "verify_intro"
}

type inputField struct {
	name      string
	inputType string
}

var profileFields = []inputField{
	{"firstname", "text"},
	{"lastname", "text"},
	{"birthdate", "date"},
	{"age", "number"},
	{"phone_number", "tel"},
	{"address", "text"},
	{"id_type", "text"},
}

var genders = []string{"Male", "Female"}

const sendOTPScript = `<script>
document.getElementById("send-otp").addEventListener("click", async () => {
  const form = document.getElementById("verify");
  const res = await fetch("/verification/account/send-otp", {
    method: "POST",
    headers: {"Content-Type": "application/json", "X-CSRF-Token": form.csrf_token.value},
    body: JSON.stringify({
      email: form.email.value,
      is_owner_registration: !!form.is_owner_registration,
    }),
  });
  const body = await res.json();
  document.getElementById("otp-status").textContent = body.message;
});
</script>`
