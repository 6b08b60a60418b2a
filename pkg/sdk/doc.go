// Package carbonfactors is an in-process Go client for emission factor
// search and emissions calculation over a catalog of precomputed embeddings.
//
// The client loads EFDB export files, builds an exact cosine index and
// embeds queries with the provided Embedder. No server is required.
//
//	client, _ := carbonfactors.New(ctx,
//	    carbonfactors.WithCatalogFiles("data/efdb_embeddings/*.json"),
//	    carbonfactors.WithEmbedder(myEmbedder),
//	)
//	defer client.Close()
//
//	hits, _ := client.Search(ctx, "steel production", carbonfactors.TopK(3))
//	reports, _ := client.Calculate(ctx, carbonfactors.Activity{
//	    Description: "20 kg steel beams and transport 150 km",
//	})
package carbonfactors
