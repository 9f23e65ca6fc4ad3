// Bookrec - Hybrid Book Recommendation Engine
// Copyright 2026 The Bookrec Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookrec/bookrec

/*
Package recommend implements the hybrid recommendation core: model
training, artifact encoding, and the serving engine.

Three models cover the catalog from different angles:

  - ContentModel: TF-IDF over title, author, genre, and description
    with unigram and bigram terms. Serves "more like this" queries and
    taste profiles built from a user's liked books.
  - CollabModel: implicit-feedback ALS matrix factorization over the
    user/book interaction log. Serves personalized rankings for users
    the log has seen.
  - PopularityModel: a precomputed table blending interaction volume
    and average rating. Serves users and items with no history at all.

# Merging

The Merger blends collaborative and content scores after min-max
normalization, weighting the collaborative side by alpha. If only one
model can answer, its result is served alone and the response strategy
says which one. The Engine adds the popularity tier underneath, so a
query degrades in order: hybrid, single model, popularity, none.

# Serving

Engine holds the live Snapshot behind an atomic pointer. Reload builds
a complete new snapshot from the artifact store and swaps it in; a
model whose artifact is missing or corrupt is left out rather than
failing the reload. In-flight queries keep the generation they started
with.

# Artifacts

Trained models serialize into a versioned binary container (magic
"BRMF") with a JSON metadata header and a checksummed payload. Encode
and Decode round-trip every model; Decode rejects containers whose
checksum, version, or shape does not hold.

Training entry points and the serving engine are safe for concurrent
use; the model structs themselves are immutable after training.
*/
package recommend
