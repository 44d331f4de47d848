package precache

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/template"
)

var workerTemplate = template.Must(template.New("service-worker").Funcs(template.FuncMap{
	"json": func(v any) (string, error) {
		b, err := json.Marshal(v)
		return string(b), err
	},
}).Option("missingkey=error").Parse(workerSource))

// Render produces the service worker script for m.
func Render(m *Manifest) ([]byte, error) {
	precache := make([][2]string, len(m.Entries))
	for i, e := range m.Entries {
		precache[i] = [2]string{e.URL, e.Hash}
	}
	data := map[string]any{
		"CacheID":       m.CacheID,
		"ImportScripts": m.ImportScripts,
		"Precache":      precache,
	}

	var buf bytes.Buffer
	if err := workerTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render service worker: %w", err)
	}
	return buf.Bytes(), nil
}

const workerSource = `'use strict';
// Generated by assetflow. Do not edit.

var precacheConfig = {{ json .Precache }};
var cacheName = 'assetflow-' + {{ json .CacheID }} + '-' + (self.registration ? self.registration.scope : '');

var hashParamName = '_assetflow_hash';

function urlWithHash(url, hash) {
  var u = new URL(url, self.location);
  u.searchParams.set(hashParamName, hash);
  return u.toString();
}

function stripHash(url) {
  var u = new URL(url);
  u.searchParams.delete(hashParamName);
  return u.toString();
}

var urlsToCacheKeys = new Map(precacheConfig.map(function (item) {
  var absolute = new URL(item[0], self.location).toString();
  return [absolute, urlWithHash(absolute, item[1])];
}));

self.addEventListener('install', function (event) {
  event.waitUntil(caches.open(cacheName).then(function (cache) {
    return cache.keys().then(function (requests) {
      var cached = new Set(requests.map(function (r) { return r.url; }));
      return Promise.all(Array.from(urlsToCacheKeys.values()).map(function (cacheKey) {
        if (cached.has(cacheKey)) {
          return undefined;
        }
        return fetch(new Request(cacheKey, {credentials: 'same-origin'})).then(function (response) {
          if (!response.ok) {
            throw new Error('Request for ' + cacheKey + ' returned ' + response.status);
          }
          return cache.put(cacheKey, response);
        });
      }));
    });
  }).then(function () {
    return self.skipWaiting();
  }));
});

self.addEventListener('activate', function (event) {
  var expected = new Set(urlsToCacheKeys.values());
  event.waitUntil(caches.open(cacheName).then(function (cache) {
    return cache.keys().then(function (requests) {
      return Promise.all(requests.map(function (request) {
        if (!expected.has(request.url)) {
          return cache.delete(request);
        }
        return undefined;
      }));
    });
  }).then(function () {
    return self.clients.claim();
  }));
});

self.addEventListener('fetch', function (event) {
  if (event.request.method !== 'GET') {
    return;
  }
  var url = stripHash(event.request.url);
  if (!urlsToCacheKeys.has(url) && url.endsWith('/')) {
    url = url + 'index.html';
  }
  var cacheKey = urlsToCacheKeys.get(url);
  if (cacheKey) {
    event.respondWith(caches.open(cacheName).then(function (cache) {
      return cache.match(cacheKey).then(function (response) {
        return response || fetch(event.request);
      });
    }));
  }
});

importScripts.apply(self, {{ json .ImportScripts }});
`
