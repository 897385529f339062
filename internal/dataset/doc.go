// Package dataset owns a dataset directory: its location registry, schema,
// and index, plus the inter-process lock taken while an operation mutates
// files. Mutation flows one way, from operations down into these components;
// none of them reaches back up.
package dataset
