// Package annkit provides a registry of interchangeable vector index
// implementations selected by name and element type at runtime.
//
// Accelerator-backed implementations are wrapped so that at most a configured
// number of Build and Search calls execute on one index at a time.
//
// # Quick Start
//
//	cfg, _ := config.Load(config.LoadOptions{EnvFiles: []string{".env"}})
//	if err := annkit.Init(cfg); err != nil {
//		log.Fatal(err)
//	}
//
//	node, _ := annkit.CreateIndex("GPU_IVF_PQ", index.Float32, index.CurrentVersion)
//	defer node.Close()
//
//	_ = node.Build(ctx, data, index.Config{NList: 1024})
//	res, _ := node.Search(ctx, queries, 10, index.Config{NProbe: 32}, nil)
//
// # Registration
//
// Implementations are registered from a data-driven table (see
// DefaultRegistrations). Each row lists alias names, element types, a
// builder and the name of the configured concurrency limit. Custom
// implementations can be added to any Registry until it is sealed:
//
//	_, err := annkit.Register(annkit.Key{Name: "MY_INDEX", ElementType: index.Float32}, build, 4)
//
// Duplicate keys are rejected with ErrKeyConflict. When all slots are in use,
// callers block until one frees up unless the entry was registered with
// WithPolicy(resource.PolicyFailFast).
package annkit
