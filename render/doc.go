// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package render formats polls for the terminal.

Chart turns a poll's tallies into rows with a truncated label and a
one-decimal percentage of the poll total:

	for _, row := range render.Chart(p) {
		fmt.Println(row.Label, row.Percentage)
	}

Listing and Detail produce styled text for the list and show commands.
Badge names the visibility as the viewer sees it: "Public", "Private",
"Private (Yours)" for the owner, and "Allowed" or "Restricted" for
restricted polls depending on whether the viewer is on the allowlist.

Styles come from lipgloss and degrade to plain text when the output is
not a terminal.
*/
package render
