package config

// ChangedSections compares two configs and returns the names of sections
// that were added, removed or edited, new-file order first.
func ChangedSections(old, new *Config) []string {
	var changed []string

	for _, newSec := range new.GetSections() {
		name := newSec.GetName()
		oldSec := old.sectionNoTrack(name)
		if oldSec == nil || !sectionsEqual(oldSec, newSec) {
			changed = append(changed, name)
		}
	}

	for _, name := range old.GetSectionNames() {
		if !new.HasSection(name) {
			changed = append(changed, name)
		}
	}

	return changed
}

func (c *Config) sectionNoTrack(name string) *Section {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sections[name]
}

// sectionsEqual checks if two sections have the same options.
func sectionsEqual(a, b *Section) bool {
	aOpts := a.RawOptions()
	bOpts := b.RawOptions()

	if len(aOpts) != len(bOpts) {
		return false
	}

	for k, v := range aOpts {
		if bOpts[k] != v {
			return false
		}
	}

	return true
}
