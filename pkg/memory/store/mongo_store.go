package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jxitc/info-agent-sub000/pkg/memory/model"
)

// MongoStore targets MongoDB Atlas: semantic search through $vectorSearch,
// structured lookup through regex narrowing, graph edges embedded in the
// memory documents and walked breadth first.
type MongoStore struct {
	client            *mongo.Client
	collection        *mongo.Collection
	counterCollection *mongo.Collection
}

var (
	_ Backend           = (*MongoStore)(nil)
	_ SchemaInitializer = (*MongoStore)(nil)
)

const mongoCloseTimeout = 5 * time.Second

func NewMongoStore(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	if uri == "" {
		return nil, errors.New("mongo uri is required")
	}
	if database == "" {
		return nil, errors.New("mongo database name is required")
	}
	if collection == "" {
		collection = "memories"
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	db := client.Database(database)
	return &MongoStore{
		client:            client,
		collection:        db.Collection(collection),
		counterCollection: db.Collection("counters"),
	}, nil
}

type mongoMemoryDocument struct {
	ID          int64       `bson:"_id"`
	Title       string      `bson:"title"`
	Content     string      `bson:"content"`
	Fields      string      `bson:"fields"`
	Embedding   []float64   `bson:"embedding,omitempty"`
	ContentHash string      `bson:"content_hash"`
	CreatedAt   time.Time   `bson:"created_at"`
	Edges       []mongoEdge `bson:"edges,omitempty"`
}

type mongoEdge struct {
	Target int64  `bson:"target"`
	Type   string `bson:"type"`
}

func (doc mongoMemoryDocument) toRecord() model.MemoryRecord {
	return model.MemoryRecord{
		ID:            doc.ID,
		Title:         doc.Title,
		Content:       doc.Content,
		DynamicFields: model.DecodeFields(doc.Fields),
		Embedding:     float32Vector(doc.Embedding),
		ContentHash:   doc.ContentHash,
		CreatedAt:     doc.CreatedAt,
	}
}

func (ms *MongoStore) PutMemory(ctx context.Context, rec model.MemoryRecord, edges []model.GraphEdge) (int64, error) {
	if ms == nil || ms.collection == nil {
		return 0, errors.New("mongo store is not open")
	}
	if rec.Content == "" {
		return 0, errors.New("memory content is empty")
	}
	hash := rec.ContentHash
	if hash == "" {
		hash = model.HashContent(rec.Content)
	}
	var dup mongoMemoryDocument
	err := ms.collection.FindOne(ctx, bson.M{"content_hash": hash}).Decode(&dup)
	if err == nil {
		return dup.ID, ErrDuplicateContent
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return 0, err
	}

	id, err := ms.nextID(ctx)
	if err != nil {
		return 0, err
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	doc := mongoMemoryDocument{
		ID:          id,
		Title:       rec.Title,
		Content:     rec.Content,
		Fields:      model.EncodeFields(rec.DynamicFields),
		Embedding:   float64Vector(rec.Embedding),
		ContentHash: hash,
		CreatedAt:   createdAt,
	}
	for _, edge := range model.ValidEdges(edges) {
		doc.Edges = append(doc.Edges, mongoEdge{Target: edge.Target, Type: string(edge.Type)})
	}
	if _, err := ms.collection.InsertOne(ctx, doc); err != nil {
		return 0, err
	}
	return id, nil
}

func (ms *MongoStore) SearchFields(ctx context.Context, terms []string, limit int) ([]FieldMatch, error) {
	terms = NormalizeTerms(terms)
	if ms == nil || ms.collection == nil || len(terms) == 0 || limit <= 0 {
		return nil, nil
	}
	ors := make(bson.A, 0, len(terms)*3)
	for _, term := range terms {
		regex := bson.M{"$regex": term, "$options": "i"}
		ors = append(ors,
			bson.M{"title": regex},
			bson.M{"content": regex},
			bson.M{"fields": regex},
		)
	}
	cursor, err := ms.collection.Find(ctx, bson.M{"$or": ors})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	matches := make([]FieldMatch, 0, limit)
	for cursor.Next(ctx) {
		var doc mongoMemoryDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		if m, ok := BestFieldMatch(doc.toRecord(), terms); ok {
			matches = append(matches, m)
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Exact != matches[j].Exact {
			return matches[i].Exact
		}
		return matches[i].Record.CreatedAt.After(matches[j].Record.CreatedAt)
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (ms *MongoStore) SearchByVector(ctx context.Context, queryEmbedding []float32, limit int) ([]model.MemoryRecord, error) {
	if ms == nil || ms.collection == nil || len(queryEmbedding) == 0 || limit <= 0 {
		return nil, nil
	}
	pipeline := mongo.Pipeline{
		{
			{Key: "$vectorSearch", Value: bson.D{
				{Key: "index", Value: "vector_index"},
				{Key: "path", Value: "embedding"},
				{Key: "queryVector", Value: float64Vector(queryEmbedding)},
				{Key: "numCandidates", Value: int64(limit * 10)},
				{Key: "limit", Value: int64(limit)},
			}},
		},
		{
			{Key: "$addFields", Value: bson.D{
				{Key: "score", Value: bson.D{{Key: "$meta", Value: "vectorSearchScore"}}},
			}},
		},
	}
	cursor, err := ms.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []model.MemoryRecord
	for cursor.Next(ctx) {
		var doc struct {
			mongoMemoryDocument `bson:",inline"`
			Score               float64 `bson:"score"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		rec := doc.toRecord()
		rec.Score = ClampUnit(doc.Score)
		records = append(records, rec)
	}
	return records, cursor.Err()
}

func (ms *MongoStore) Seeds(ctx context.Context, terms []string, limit int) ([]int64, error) {
	matches, err := ms.SearchFields(ctx, terms, limit)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(matches))
	for i, m := range matches {
		ids[i] = m.Record.ID
	}
	return ids, nil
}

// Neighborhood expands one hop per round trip: forward edges come from the
// frontier documents, reverse edges from an edges.target query.
func (ms *MongoStore) Neighborhood(ctx context.Context, seedIDs []int64, maxHops, limit int) ([]GraphNeighbor, error) {
	if ms == nil || ms.collection == nil || len(seedIDs) == 0 || maxHops <= 0 || limit <= 0 {
		return nil, nil
	}
	visited := make(map[int64]bool, len(seedIDs))
	paths := make(map[int64]string, len(seedIDs))
	frontier := make([]int64, 0, len(seedIDs))
	for _, id := range seedIDs {
		if visited[id] {
			continue
		}
		visited[id] = true
		frontier = append(frontier, id)
	}
	seedDocs, err := ms.fetchDocs(ctx, frontier)
	if err != nil {
		return nil, err
	}
	for id, doc := range seedDocs {
		paths[id] = PathLabel(doc.toRecord())
	}

	var neighbors []GraphNeighbor
	for hop := 1; hop <= maxHops && len(frontier) > 0; hop++ {
		next := make([]int64, 0)
		type link struct {
			from int64
			via  string
		}
		discovered := make(map[int64]link)

		frontierDocs, err := ms.fetchDocs(ctx, frontier)
		if err != nil {
			return nil, err
		}
		for from, doc := range frontierDocs {
			for _, edge := range doc.Edges {
				if !visited[edge.Target] {
					if _, ok := discovered[edge.Target]; !ok {
						discovered[edge.Target] = link{from: from, via: edge.Type}
					}
				}
			}
		}

		cursor, err := ms.collection.Find(ctx, bson.M{"edges.target": bson.M{"$in": frontier}})
		if err != nil {
			return nil, err
		}
		for cursor.Next(ctx) {
			var doc mongoMemoryDocument
			if err := cursor.Decode(&doc); err != nil {
				cursor.Close(ctx)
				return nil, err
			}
			if visited[doc.ID] {
				continue
			}
			if _, ok := discovered[doc.ID]; ok {
				continue
			}
			for _, edge := range doc.Edges {
				if visited[edge.Target] && edge.Target != doc.ID {
					discovered[doc.ID] = link{from: edge.Target, via: edge.Type}
					break
				}
			}
		}
		if err := cursor.Err(); err != nil {
			cursor.Close(ctx)
			return nil, err
		}
		cursor.Close(ctx)

		ids := make([]int64, 0, len(discovered))
		for id := range discovered {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		docs, err := ms.fetchDocs(ctx, ids)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			doc, ok := docs[id]
			if !ok {
				continue
			}
			l := discovered[id]
			rec := doc.toRecord()
			path := fmt.Sprintf("%s -%s-> %s", paths[l.from], l.via, PathLabel(rec))
			visited[id] = true
			paths[id] = path
			neighbors = append(neighbors, GraphNeighbor{Record: rec, Hops: hop, Path: path})
			next = append(next, id)
		}
		frontier = next
	}
	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].Hops != neighbors[j].Hops {
			return neighbors[i].Hops < neighbors[j].Hops
		}
		return neighbors[i].Record.CreatedAt.After(neighbors[j].Record.CreatedAt)
	})
	if len(neighbors) > limit {
		neighbors = neighbors[:limit]
	}
	return neighbors, nil
}

func (ms *MongoStore) GetMemories(ctx context.Context, ids []int64) (map[int64]model.MemoryRecord, error) {
	docs, err := ms.fetchDocs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]model.MemoryRecord, len(docs))
	for id, doc := range docs {
		out[id] = doc.toRecord()
	}
	return out, nil
}

func (ms *MongoStore) Count(ctx context.Context) (int, error) {
	if ms == nil || ms.collection == nil {
		return 0, nil
	}
	count, err := ms.collection.CountDocuments(ctx, bson.M{})
	return int(count), err
}

// CreateSchema sets up supporting indexes; the Atlas vector index itself is
// managed through the cluster configuration.
func (ms *MongoStore) CreateSchema(ctx context.Context) error {
	if ms == nil || ms.collection == nil {
		return nil
	}
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "content_hash", Value: 1}},
			Options: options.Index().SetName("content_hash").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}},
			Options: options.Index().SetName("created_at"),
		},
		{
			Keys:    bson.D{{Key: "edges.target", Value: 1}},
			Options: options.Index().SetName("edges_target"),
		},
	}
	_, err := ms.collection.Indexes().CreateMany(ctx, indexes)
	return err
}

func (ms *MongoStore) Close() error {
	if ms == nil || ms.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), mongoCloseTimeout)
	defer cancel()
	return ms.client.Disconnect(ctx)
}

func (ms *MongoStore) fetchDocs(ctx context.Context, ids []int64) (map[int64]mongoMemoryDocument, error) {
	out := make(map[int64]mongoMemoryDocument, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cursor, err := ms.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	for cursor.Next(ctx) {
		var doc mongoMemoryDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out[doc.ID] = doc
	}
	return out, cursor.Err()
}

func (ms *MongoStore) nextID(ctx context.Context) (int64, error) {
	if ms.counterCollection == nil {
		return 0, errors.New("mongo counter collection is not configured")
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	res := ms.counterCollection.FindOneAndUpdate(ctx,
		bson.M{"_id": ms.collection.Name()},
		bson.M{"$inc": bson.M{"seq": 1}}, opts)
	if res.Err() != nil {
		return 0, res.Err()
	}
	var doc struct {
		Seq int64 `bson:"seq"`
	}
	if err := res.Decode(&doc); err != nil {
		return 0, err
	}
	return doc.Seq, nil
}

func float64Vector(vec []float32) []float64 {
	if len(vec) == 0 {
		return nil
	}
	out := make([]float64, len(vec))
	for i, v := range vec {
		out[i] = float64(v)
	}
	return out
}

func float32Vector(vec []float64) []float32 {
	if len(vec) == 0 {
		return nil
	}
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(v)
	}
	return out
}
