// Package archivist embeds the archivist filter compiler in a Go program.
//
// A Client loads a rules file, compiles filter lists into search queries and,
// when embedders are registered, turns text into vector references for the
// embedding similarity filter. Embeddings can be cached in Redis or Valkey.
//
//	client, _ := archivist.New(ctx,
//	    archivist.WithRulesFile("config/rules.yaml"),
//	    archivist.WithEmbedder("gte-768", myEmbedder, 768),
//	)
//	defer client.Close()
//
//	ref, _ := client.Reference(ctx, "gte-768", "moulin rouge")
//	q, _ := client.Compile(ctx, "search",
//	    archivist.MustFilter("language", archivist.Include, archivist.List("fr", "de")),
//	    archivist.MustFilter("embedding", archivist.Include, archivist.Scalar(ref)),
//	)
//	fmt.Println(q.Query, q.Filter)
package archivist
