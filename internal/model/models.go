package model

// All lists every persisted model in dependency order (parents first)
func All() []interface{} {
	return []interface{}{
		&User{},
		&Setting{},
		&Contact{},
		&Call{},
		&Project{},
		&Lead{},
		&Interaction{},
	}
}
