package model

// User is a registered participant as listed by GET /users.
type User struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Skills     string `json:"skills"`
	Experience string `json:"experience,omitempty"`
	GitHub     string `json:"github,omitempty"`
	CreatedAt  string `json:"created_at,omitempty"`
}

// SkillList splits the comma-separated skills field.
func (u User) SkillList() []string {
	return splitSkills(u.Skills)
}

// Registration is the body of POST /register. Username and Password are the
// account variant of the form and must be given together.
type Registration struct {
	Name       string `json:"name" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Skills     string `json:"skills" validate:"required"`
	Experience string `json:"experience,omitempty"`
	GitHub     string `json:"github,omitempty" validate:"omitempty,url"`
	Username   string `json:"username,omitempty" validate:"required_with=Password"`
	Password   string `json:"password,omitempty" validate:"required_with=Username"`
}

// RegisteredUser is the response of POST /register.
type RegisteredUser struct {
	UserID  int64  `json:"user_id"`
	Message string `json:"message,omitempty"`
}

// Credentials is the body of POST /login.
type Credentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}
