// Package detect implements the three anomaly detectors that feed the
// suspension pipeline.
//
//   - SpikeDetector flags usage far above a project's own recent baseline,
//     guarded by an absolute floor against near-zero-baseline noise.
//   - ErrorRateDetector flags abnormally high failed-to-total request
//     ratios, guarded by a minimum sample size.
//   - PatternDetector runs three malicious-behavior heuristics (SQL
//     injection signatures, auth brute force, rapid API-key creation) with
//     per-project threshold overrides merged field-by-field into defaults.
//
// Detectors only decide; they never suspend. Confirmed results are
// persisted (see the storage subpackage) for history and trend analysis
// and handed to the sweep orchestrator, which acts on them.
package detect
