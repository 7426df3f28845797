package translation

// splitTogether assigns each composite constraint to the shared or the
// translation schema by field membership. A constraint whose fields are all
// translated moves to the translation schema; one with no translated field
// stays on the shared schema; mixing both kinds is a configuration error.
// Input order is preserved within each output, so schema generation stays
// deterministic.
func splitTogether(entity, option string, constraints [][]string, translated map[string]bool) (shared, trans [][]string, err error) {
	for _, constraint := range constraints {
		n := 0
		for _, field := range constraint {
			if translated[field] {
				n++
			}
		}
		switch {
		case n == len(constraint) && n > 0:
			trans = append(trans, constraint)
		case n == 0:
			shared = append(shared, constraint)
		default:
			return nil, nil, configErr(entity,
				"constraints in %s cannot mix translated and untranslated fields, such as %v",
				option, constraint)
		}
	}
	return shared, trans, nil
}
