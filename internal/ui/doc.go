// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI has four views, cycled with tab:
//  1. [CatalogView] : Browse, filter and sort audiobooks; add to cart or play a preview
//  2. [CartView] : Review and prune the cart
//  3. [LibraryView] : Owned titles with resume positions
//  4. [PlayerView] : Transport controls and a progress bar for the bound title
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving results of
// store calls via the Msg union type. Notices dismiss themselves after [NoticeTTL]. Leaving the player
// unbinds the transport, which stops position checkpoints.
package ui
