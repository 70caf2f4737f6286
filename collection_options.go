package strata

// CollectionOption configures collection creation and updates.
type CollectionOption interface {
	applyCollection(*collectionConfig)
}

// collectionOptionFunc adapts a function to the CollectionOption interface.
type collectionOptionFunc func(*collectionConfig)

func (f collectionOptionFunc) applyCollection(c *collectionConfig) { f(c) }

type collectionConfig struct {
	properties        []PropertyInfo
	vectorDimensions  int
	distance          Distance
	vectorIndex       HNSWConfig
	bm25              BM25Config
	replicationFactor int
	multiTenancy      MultiTenancyConfig
}

// WithProperty adds an indexed property to the collection schema.
func WithProperty(name string, dt DataType) CollectionOption {
	return collectionOptionFunc(func(c *collectionConfig) {
		c.properties = append(c.properties, PropertyInfo{Name: name, DataType: dt, Indexed: true})
	})
}

// WithUnindexedProperty adds a stored-only property (not filterable).
func WithUnindexedProperty(name string, dt DataType) CollectionOption {
	return collectionOptionFunc(func(c *collectionConfig) {
		c.properties = append(c.properties, PropertyInfo{Name: name, DataType: dt})
	})
}

// WithVectorDimensions sets the vector dimension. Immutable after creation.
func WithVectorDimensions(dim int) CollectionOption {
	return collectionOptionFunc(func(c *collectionConfig) {
		c.vectorDimensions = dim
	})
}

// WithDistance sets the vector distance metric. Defaults to cosine.
func WithDistance(d Distance) CollectionOption {
	return collectionOptionFunc(func(c *collectionConfig) {
		c.distance = d
	})
}

// WithVectorIndex configures HNSW index parameters.
func WithVectorIndex(cfg HNSWConfig) CollectionOption {
	return collectionOptionFunc(func(c *collectionConfig) {
		c.vectorIndex = cfg
	})
}

// WithBM25 configures keyword ranking parameters (defaults k1=1.2, b=0.75).
func WithBM25(k1, b float64) CollectionOption {
	return collectionOptionFunc(func(c *collectionConfig) {
		c.bm25 = BM25Config{K1: k1, B: b}
	})
}

// WithReplicationFactor sets how many nodes hold each shard.
func WithReplicationFactor(n int) CollectionOption {
	return collectionOptionFunc(func(c *collectionConfig) {
		c.replicationFactor = n
	})
}

// WithMultiTenancy enables tenant isolation. When autoCreate is true the
// server creates tenants on first write.
func WithMultiTenancy(autoCreate bool) CollectionOption {
	return collectionOptionFunc(func(c *collectionConfig) {
		c.multiTenancy = MultiTenancyConfig{Enabled: true, AutoTenantCreate: autoCreate}
	})
}
