package auth

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

const (
	PermCreatePoetry = "CREATE_POETRY"
	PermUpdatePoetry = "UPDATE_POETRY"
	PermDeletePoetry = "DELETE_POETRY"
	PermCreateAuthor = "CREATE_AUTHOR"
)

// DefaultRole is granted to every newly registered user.
const DefaultRole = RoleUser

// BuiltinRoles returns the role catalog seeded into fresh stores.
func BuiltinRoles() []Role {
	return []Role{
		{
			ID:   "role-user",
			Name: RoleUser,
			Permissions: []Permission{
				{ID: "perm-create-poetry", Name: PermCreatePoetry},
				{ID: "perm-update-poetry", Name: PermUpdatePoetry},
			},
		},
		{
			ID:   "role-admin",
			Name: RoleAdmin,
			Permissions: []Permission{
				{ID: "perm-create-poetry", Name: PermCreatePoetry},
				{ID: "perm-update-poetry", Name: PermUpdatePoetry},
				{ID: "perm-delete-poetry", Name: PermDeletePoetry},
				{ID: "perm-create-author", Name: PermCreateAuthor},
			},
		},
	}
}
