// Package catalog pulls in every built-in workflow so that importing it
// alone populates the workflow registry.
package catalog

import (
	_ "github.com/prodflowhq/prodflow/catalog/governance"
	_ "github.com/prodflowhq/prodflow/catalog/pmf"
	_ "github.com/prodflowhq/prodflow/catalog/prd"
	_ "github.com/prodflowhq/prodflow/catalog/retention"
	_ "github.com/prodflowhq/prodflow/catalog/roadmap"
	_ "github.com/prodflowhq/prodflow/catalog/storymap"
)
