package instrumentation

import "strings"

// Cardinality management helpers for metrics.
//
// Connection aliases and host names are chosen by operators and can be
// arbitrary. Metrics carry the classified environment instead of the raw
// alias unless detailed labels are enabled.

// Environment is the classification of a connection alias or host name.
type Environment string

// Environment classifications for metrics cardinality control.
const (
	// EnvironmentProduction represents production servers.
	EnvironmentProduction Environment = "production"

	// EnvironmentStaging represents staging/pre-production servers.
	EnvironmentStaging Environment = "staging"

	// EnvironmentDevelopment represents development, test and demo servers.
	EnvironmentDevelopment Environment = "development"

	// EnvironmentLocal represents servers on the local machine.
	EnvironmentLocal Environment = "local"

	// EnvironmentCurrent is used when no alias was given and the current
	// connection is addressed.
	EnvironmentCurrent Environment = "current"

	// EnvironmentOther represents names that don't match any known pattern.
	EnvironmentOther Environment = "other"
)

// ClassifyAlias classifies a connection alias or host name into an
// environment for metrics.
//
// Matching is case-insensitive and runs in this order:
//
//	| Pattern                                | Classification |
//	|----------------------------------------|----------------|
//	| Empty string                           | current        |
//	| localhost, 127.0.0.1, ::1              | local          |
//	| Prefix: prod-, prod_, prd-             | production     |
//	| Contains: production, -prod-, .prod.   | production     |
//	| Suffix: -prod, Equal: prod             | production     |
//	| Prefix: staging-, stg-, uat-           | staging        |
//	| Contains: staging, -stg-, .stg.        | staging        |
//	| Suffix: -stg, Equal: stage             | staging        |
//	| Prefix: dev-, dev_, test-, demo        | development    |
//	| Contains: development, -dev-, -test-   | development    |
//	| Suffix: -dev, -test                    | development    |
//	| Everything else                        | other          |
//
// # Examples
//
//	ClassifyAlias("")                        // "current"
//	ClassifyAlias("localhost")               // "local"
//	ClassifyAlias("prod-eu-1")               // "production"
//	ClassifyAlias("tomcat.prod.example.com") // "production"
//	ClassifyAlias("stage")                   // "staging"
//	ClassifyAlias("dev-shop")                // "development"
//	ClassifyAlias("tomcat1")                 // "other"
func ClassifyAlias(name string) string {
	if name == "" {
		return string(EnvironmentCurrent)
	}

	n := strings.ToLower(name)

	switch n {
	case "localhost", "127.0.0.1", "::1":
		return string(EnvironmentLocal)
	case "prod":
		return string(EnvironmentProduction)
	case "stage":
		return string(EnvironmentStaging)
	case "dev", "test":
		return string(EnvironmentDevelopment)
	}

	if strings.HasPrefix(n, "prod-") ||
		strings.HasPrefix(n, "prod_") ||
		strings.HasPrefix(n, "prd-") ||
		strings.Contains(n, "production") ||
		strings.Contains(n, "-prod-") ||
		strings.Contains(n, ".prod.") ||
		strings.HasSuffix(n, "-prod") {
		return string(EnvironmentProduction)
	}

	if strings.HasPrefix(n, "staging-") ||
		strings.HasPrefix(n, "stg-") ||
		strings.HasPrefix(n, "uat-") ||
		strings.Contains(n, "staging") ||
		strings.Contains(n, "-stg-") ||
		strings.Contains(n, ".stg.") ||
		strings.HasSuffix(n, "-stg") {
		return string(EnvironmentStaging)
	}

	if strings.HasPrefix(n, "dev-") ||
		strings.HasPrefix(n, "dev_") ||
		strings.HasPrefix(n, "test-") ||
		strings.HasPrefix(n, "demo") ||
		strings.Contains(n, "development") ||
		strings.Contains(n, "-dev-") ||
		strings.Contains(n, "-test-") ||
		strings.HasSuffix(n, "-dev") ||
		strings.HasSuffix(n, "-test") {
		return string(EnvironmentDevelopment)
	}

	return string(EnvironmentOther)
}
