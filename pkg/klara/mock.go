package klara

// Mock payloads use the same wire shape as the live API and go through the
// same decoding and normalization, so mock mode exercises the real code path.

const mockArticlesJSON = `[
  {
    "id": "art-1001",
    "articleNumber": "1001",
    "nameDE": "Barolo Riserva DOCG 2017",
    "descriptionDE": "Kraftvoller Nebbiolo aus dem Piemont mit Noten von Rosen und Teer.",
    "pricePeriods": [{"price": 49.90}],
    "categories": [{"id": "cat-rotwein"}]
  },
  {
    "id": "art-1002",
    "articleNumber": "1002",
    "nameDE": "Grüner Veltliner Federspiel 2022",
    "descriptionDE": "Frisch und pfeffrig, ein Klassiker aus der Wachau.",
    "pricePeriods": [{"price": 14.50}],
    "categories": [{"id": "cat-weisswein"}]
  },
  {
    "id": "art-1003",
    "articleNumber": "1003",
    "nameDE": "Blaufränkisch Reserve 2019",
    "descriptionDE": "Dunkle Beeren, feine Würze, lange Reife im Holzfass.",
    "pricePeriods": [{"price": 22.00}],
    "categories": [{"id": "cat-rotwein"}]
  },
  {
    "id": "art-1004",
    "articleNumber": "1004",
    "nameEN": "Riesling Smaragd 2021",
    "descriptionEN": "Stone fruit, citrus and a mineral finish.",
    "pricePeriods": [{"price": 29.90}],
    "categories": [{"id": "cat-weisswein"}]
  },
  {
    "id": "art-1005",
    "articleNumber": "1005",
    "nameDE": "Winzersekt Brut",
    "descriptionDE": "Traditionelle Flaschengärung, 24 Monate auf der Hefe.",
    "pricePeriods": [{"price": 18.00}],
    "categories": [{"id": "cat-schaumwein"}]
  }
]`

const mockCategoriesJSON = `[
  {"id": "cat-schaumwein", "nameDE": "Schaumwein"},
  {"id": "cat-weisswein", "nameDE": "Weißwein", "order": 2},
  {"id": "cat-rotwein", "nameDE": "Rotwein", "order": 1}
]`
