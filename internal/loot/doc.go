// Package loot loads the static character-class and dungeon loot-table
// configuration. The store does not enforce these values; they exist so
// clients can render class/role and item pickers.
package loot
