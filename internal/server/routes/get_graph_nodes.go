package routes

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nextier/graph-etl/internal/server/middleware"
	"github.com/nextier/graph-etl/pkg/common"
	"github.com/nextier/graph-etl/pkg/graph"
)

func GetNodeHandler(c echo.Context) error {
	nodeType := common.NodeType(c.Param("type"))
	if !common.ValidNodeType(nodeType) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Unknown node type"})
	}

	app := c.(*middleware.AppContext).App
	node, err := app.Graph.GetNodeByID(c.Request().Context(), nodeType, c.Param("id"))
	if errors.Is(err, graph.ErrNodeNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Node not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, node)
}

// GetNodeByKeyHandler looks a node up by its natural key, passed as a query
// parameter because keys contain spaces and commas.
func GetNodeByKeyHandler(c echo.Context) error {
	nodeType := common.NodeType(c.Param("type"))
	if !common.ValidNodeType(nodeType) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Unknown node type"})
	}
	key := c.QueryParam("key")
	if key == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Missing key parameter"})
	}

	app := c.(*middleware.AppContext).App
	node, err := app.Graph.GetNodeByKey(c.Request().Context(), nodeType, key)
	if errors.Is(err, graph.ErrNodeNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Node not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, node)
}

func GetNodeNeighborsHandler(c echo.Context) error {
	nodeType := common.NodeType(c.Param("type"))
	if !common.ValidNodeType(nodeType) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Unknown node type"})
	}

	edgeType := common.EdgeType(c.QueryParam("edge_type"))
	if edgeType != "" && !validEdgeType(edgeType) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Unknown edge type"})
	}

	app := c.(*middleware.AppContext).App
	ctx := c.Request().Context()

	node, err := app.Graph.GetNodeByID(ctx, nodeType, c.Param("id"))
	if errors.Is(err, graph.ErrNodeNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Node not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	neighbors, err := app.Graph.FindConnectedNodes(ctx, node.ID, edgeType)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"node":      node,
		"neighbors": neighbors,
	})
}

func validEdgeType(t common.EdgeType) bool {
	for _, et := range common.EdgeTypes {
		if et == t {
			return true
		}
	}
	return false
}
