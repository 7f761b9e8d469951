package main

import (
	"encoding/json"

	"github.com/fwojciec/grabfile"
)

// Run executes the locators command.
func (c *LocatorsCmd) Run(deps *Dependencies) error {
	enc := json.NewEncoder(deps.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(grabfile.DefaultLocators())
}
