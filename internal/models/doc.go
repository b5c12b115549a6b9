// Package models defines the audiobook store's domain entities and the local persistence contract.
//
// The package contains two categories of types:
//
// 1. Wire types: JSON shapes exchanged with the store API
//   - [Audiobook] : Immutable catalog item
//   - [Cart] / [CartItem] : The customer's in-progress purchase set
//   - [LibraryEntry] : An owned audiobook with its server-side resume data
//   - [PaymentCard] : A saved card (the CVV is never kept)
//   - [Customer] and the request bodies for account, card, and order endpoints
//
// 2. Local entities: rows owned by this client
//   - [Session] : The signed-in identity persisted in the local state slot
//   - [DownloadRecord] : A file written by a library download
//
// Local entities implement [Model]; [Repository] describes the CRUD contract their SQLite stores satisfy.
package models
