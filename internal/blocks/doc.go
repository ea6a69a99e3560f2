// Package blocks provides the concrete block types a blueprint can
// instantiate: a radio front end, a digital down-converter, a splitter, a
// FIFO and software stream endpoints. Each block embeds *graph.Node and
// registers its properties, resolvers and action handlers in its constructor.
package blocks
