// Package archive persists normalized envelopes in a blobstore.Store.
//
// Each envelope is written as one self-describing blob:
//
//	["RGFE"][version uint8][codec name length uint8][codec name][compress block]
//
// The compress block is produced by package compress, so a reader needs no
// out-of-band configuration to decode an archived envelope. Keys have the form
//
//	<prefix>/<query mode>/<uuid>.env
//
// with the query mode path-escaped and "_" standing in for an empty mode.
//
// # Usage
//
//	arc := archive.New(blobstore.NewLocalStore("/var/lib/ragfmt"),
//	    func(o *archive.Options) {
//	        o.Compression = compress.ZSTD
//	        o.BytesPerSecond = 4 << 20
//	    })
//
//	key, err := arc.Put(ctx, env)
//	env, err = arc.Get(ctx, key)
//
// An optional Catalog indexes archived envelopes by query mode. MemoryCatalog
// keeps the index in process; package archive/dynamo stores it in DynamoDB.
package archive
