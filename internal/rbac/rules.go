package rbac

// Simple default policy. Expand as needed.
var RolePermissions = map[string][]string{
	"student": {
		"exam:take",
		"session:save",
		"session:restore",
		"exam:submit",
		"report:view-own",
	},
	// exempt accounts walk the same exam flow as students
	"exempt": {
		"exam:take",
		"session:save",
		"session:restore",
		"exam:submit",
	},
	"teacher": {
		"exam:take",
		"exam:submit",
		"session:save",
		"session:restore",
		"grades:sync",
		"report:view-any",
		"ranking:view",
	},
	"admin": {
		"*", // everything
	},
}
