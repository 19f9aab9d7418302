package docmodel

// DemoCorpus returns a small, self-contained document set exercising every
// field type and a multi-section document, for `sorex build --demo` (spec
// §6: "build --input <dir> --output <dir> [--demo]") when no real input
// directory is available yet.
func DemoCorpus() []*Document {
	return []*Document{
		{
			ID: 0, Slug: "auth-guide", Title: "Auth Guide", Excerpt: "Securing your service with tokens.",
			Href: "/docs/auth-guide", Type: "guide", Category: "security",
			Text: "Auth Guide\nAuthentication is hard to get right the first time.",
			FieldBoundaries: []FieldBoundary{
				{Start: 0, End: 10, FieldType: FieldTitle},
				{Start: 11, End: 59, FieldType: FieldContent},
			},
		},
		{
			ID: 1, Slug: "typescript-setup", Title: "TypeScript Setup", Excerpt: "Configuring a TypeScript toolchain.",
			Href: "/docs/typescript-setup", Type: "guide", Category: "tooling",
			Text: "TypeScript Setup\nInstallation\nRun the installer to set up typescript locally.\nConfiguration\nEdit tsconfig to taste.",
			FieldBoundaries: []FieldBoundary{
				{Start: 0, End: 16, FieldType: FieldTitle},
				{Start: 17, End: 29, FieldType: FieldHeading, SectionID: "install"},
				{Start: 30, End: 74, FieldType: FieldContent, SectionID: "install"},
				{Start: 75, End: 88, FieldType: FieldHeading, SectionID: "config"},
				{Start: 89, End: 113, FieldType: FieldContent, SectionID: "config"},
			},
		},
		{
			ID: 2, Slug: "rust-async", Title: "Async Rust", Excerpt: "Futures, executors, and async/await.",
			Href: "/docs/rust-async", Type: "guide", Category: "languages", Author: "jdoe", Tags: []string{"rust", "async"},
			Text: "Async Rust\nRust async code compiles to a state machine driven by an executor.",
			FieldBoundaries: []FieldBoundary{
				{Start: 0, End: 10, FieldType: FieldTitle},
				{Start: 11, End: 79, FieldType: FieldContent},
			},
		},
		{
			ID: 3, Slug: "rust-ownership", Title: "Rust Ownership", Excerpt: "Borrowing and lifetimes explained.",
			Href: "/docs/rust-ownership", Type: "guide", Category: "languages", Tags: []string{"rust"},
			Text: "Rust Ownership\nEvery value in rust has a single owner at a time.",
			FieldBoundaries: []FieldBoundary{
				{Start: 0, End: 14, FieldType: FieldTitle},
				{Start: 15, End: 66, FieldType: FieldContent},
			},
		},
		{
			ID: 4, Slug: "apple-varieties", Title: "Apple Varieties", Excerpt: "A quick orchard primer.",
			Href: "/docs/apple-varieties", Type: "note", Category: "misc",
			Text: "Apple Varieties\nApple and apply are unrelated words that happen to share a prefix. Banana is unrelated too.",
			FieldBoundaries: []FieldBoundary{
				{Start: 0, End: 15, FieldType: FieldTitle},
				{Start: 16, End: 108, FieldType: FieldContent},
			},
		},
	}
}
